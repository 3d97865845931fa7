// Command depscheck keeps the simulation packages free of transport code.
// Tick processing must stay computation only, so nothing under the
// simulation layer may import the network stack.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type packageInfo struct {
	ImportPath string
	Imports    []string
}

var simulationPackages = []string{
	"bridgesim/server/internal/geom",
	"bridgesim/server/internal/physics",
	"bridgesim/server/internal/scenario",
	"bridgesim/server/internal/ship",
	"bridgesim/server/internal/sim",
	"bridgesim/server/internal/template",
}

var forbiddenImports = []string{
	"bridgesim/server/internal/net/ws",
	"bridgesim/server/internal/app",
	"github.com/gorilla/websocket",
	"net/http",
	"os",
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	pkgs, err := decodePackages(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	if found := violations(pkgs); len(found) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range found {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func decodePackages(r io.Reader) ([]packageInfo, error) {
	decoder := json.NewDecoder(r)
	var pkgs []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return pkgs, nil
			}
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
}

func violations(pkgs []packageInfo) []string {
	var found []string
	for _, pkg := range pkgs {
		if !isSimulation(pkg.ImportPath) {
			continue
		}
		for _, imp := range pkg.Imports {
			for _, forbidden := range forbiddenImports {
				if imp == forbidden || strings.HasPrefix(imp, forbidden+"/") {
					found = append(found, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
				}
			}
		}
	}
	sort.Strings(found)
	return found
}

func isSimulation(importPath string) bool {
	for _, prefix := range simulationPackages {
		if importPath == prefix || strings.HasPrefix(importPath, prefix+"/") {
			return true
		}
	}
	return false
}
