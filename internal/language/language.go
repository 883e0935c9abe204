// Package language guesses the programming language of a source file from
// its name and, failing that, from an interpreter line at the top of it.
package language

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Language tags understood by the scan service.
const (
	Unknown    = ""
	Python     = "python"
	Java       = "java"
	JavaScript = "javascript"
	TypeScript = "typescript"
	CSharp     = "csharp"
	Go         = "go"
	Ruby       = "ruby"
	Kotlin     = "kotlin"
	Scala      = "scala"
	PHP        = "php"
	C          = "c"
	CPP        = "cpp"
	Shell      = "shell"
	Terraform  = "terraform"
	JSON       = "json"
	YAML       = "yaml"
	Rust       = "rust"
	Swift      = "swift"
)

// Detector returns the language tag of the file at path, or [Unknown].
// head holds the first bytes of the file and may be empty.
type Detector interface {
	Detect(path string, head []byte) string
}

var extensions = map[string]string{
	".py":    Python,
	".pyi":   Python,
	".pyw":   Python,
	".java":  Java,
	".js":    JavaScript,
	".mjs":   JavaScript,
	".cjs":   JavaScript,
	".jsx":   JavaScript,
	".ts":    TypeScript,
	".tsx":   TypeScript,
	".mts":   TypeScript,
	".cts":   TypeScript,
	".cs":    CSharp,
	".go":    Go,
	".rb":    Ruby,
	".kt":    Kotlin,
	".kts":   Kotlin,
	".scala": Scala,
	".sc":    Scala,
	".php":   PHP,
	".c":     C,
	".h":     C,
	".cc":    CPP,
	".cpp":   CPP,
	".cxx":   CPP,
	".hpp":   CPP,
	".hh":    CPP,
	".sh":    Shell,
	".bash":  Shell,
	".zsh":   Shell,
	".tf":    Terraform,
	".hcl":   Terraform,
	".json":  JSON,
	".yaml":  YAML,
	".yml":   YAML,
	".rs":    Rust,
	".swift": Swift,
}

// filenames maps extensionless files with a conventional name.
var filenames = map[string]string{
	"Rakefile":    Ruby,
	"Gemfile":     Ruby,
	"Jenkinsfile": Java,
	"SConstruct":  Python,
	"SConscript":  Python,
}

var interpreters = map[string]string{
	"python":  Python,
	"python2": Python,
	"python3": Python,
	"node":    JavaScript,
	"deno":    TypeScript,
	"ruby":    Ruby,
	"php":     PHP,
	"sh":      Shell,
	"bash":    Shell,
	"zsh":     Shell,
	"dash":    Shell,
}

// Default is the detector used when none is configured.
var Default Detector = Table{}

// Table detects languages using the built-in extension, file name and
// interpreter tables. Overrides take precedence over the built-in
// extension table and are keyed by lower-case extension including the dot.
type Table struct {
	Overrides map[string]string
}

func (t Table) Detect(path string, head []byte) string {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))

	if lang, ok := t.Overrides[ext]; ok {
		return lang
	}
	if lang, ok := extensions[ext]; ok {
		return lang
	}
	if lang, ok := filenames[base]; ok {
		return lang
	}
	if ext == "" {
		return FromShebang(head)
	}

	return Unknown
}

// FromShebang returns the language named by a "#!" interpreter line, such as
// "#!/usr/bin/env python3" or "#!/bin/bash".
func FromShebang(head []byte) string {
	if !bytes.HasPrefix(head, []byte("#!")) {
		return Unknown
	}

	line, _, _ := bytes.Cut(head[2:], []byte("\n"))
	fields := strings.Fields(string(line))

	if len(fields) == 0 {
		return Unknown
	}

	interpreter := filepath.Base(fields[0])

	if interpreter == "env" {
		// skip flags such as "-S"
		for _, f := range fields[1:] {
			if !strings.HasPrefix(f, "-") {
				interpreter = f

				break
			}
		}
	}

	return interpreters[normalizeInterpreter(interpreter)]
}

// normalizeInterpreter drops version suffixes such as "3.11", keeping a
// bare "2" or "3" so that python2 and python3 are still found.
func normalizeInterpreter(interpreter string) string {
	trimmed := strings.TrimRight(interpreter, "0123456789.")
	if rest := interpreter[len(trimmed):]; rest == "2" || rest == "3" {
		return interpreter
	}

	return trimmed
}
