package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/irjit/internal/ir"
)

// LoadDir builds the CUE instance in dir.
func LoadDir(dir string) (cue.Value, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("specs directory: %w", err)
	}
	if !info.IsDir() {
		return cue.Value{}, fmt.Errorf("not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Validate(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return value, nil
}

// LoadKernels loads every kernel declared under the top-level `kernel`
// field of the CUE files in dir, in declaration order.
func LoadKernels(dir string) ([]ir.KernelSpec, error) {
	value, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return KernelsOf(value)
}

// KernelsOf compiles the `kernel` struct of a built CUE value. A value with
// no `kernel` field yields no kernels.
func KernelsOf(value cue.Value) ([]ir.KernelSpec, error) {
	kernels := value.LookupPath(cue.ParsePath("kernel"))
	if !kernels.Exists() {
		return nil, nil
	}
	return CompileKernels(kernels)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
