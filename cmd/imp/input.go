package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

var impcMagic = []byte("IMPC")

// classifyInput decides whether path holds a compiled .impc image or .imp
// source text, and returns its raw bytes so the caller only reads once.
//
// Without --strict-bytecode, the magic bytes decide regardless of
// extension, so a renamed file still loads correctly. With it, the file
// extension is authoritative: a ".impc" file whose content isn't an IMPC
// image, or a ".imp" file that is one, is rejected outright rather than
// silently reinterpreted.
func classifyInput(path string, strict bool) (isBytecode bool, data []byte, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return false, nil, err
	}

	hasMagic := bytes.HasPrefix(data, impcMagic)

	if !strict {
		return hasMagic, data, nil
	}

	switch {
	case strings.HasSuffix(path, ".impc"):
		if !hasMagic {
			return false, nil, fmt.Errorf("%s: --strict-bytecode set, but file has no IMPC magic", path)
		}
		return true, data, nil
	case strings.HasSuffix(path, ".imp"):
		if hasMagic {
			return false, nil, fmt.Errorf("%s: --strict-bytecode set, but file is a compiled .impc image", path)
		}
		return false, data, nil
	default:
		return false, nil, fmt.Errorf("%s: --strict-bytecode requires a .imp or .impc extension", path)
	}
}
