package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v2"
)

const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var FormatOptions = []string{FormatAuto, FormatText, FormatJSON, FormatYAML}

var FlagFormat string

const FlagFormatName = "format"

func FormatHelp() string {
	return fmt.Sprintf("choose output format from: %s", strings.Join(FormatOptions, ", "))
}

func ValidateFormat(format string) error {
	if !slices.Contains(FormatOptions, format) {
		return fmt.Errorf("format options are: %s", strings.Join(FormatOptions, ", "))
	}
	return nil
}

// ResolveFormat turns auto into text on a terminal and json otherwise.
func ResolveFormat(format string, w io.Writer) string {
	if format != FormatAuto {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return FormatText
	}
	return FormatJSON
}

// Render writes v to w in format. Text output is produced by text.
func Render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch ResolveFormat(format, w) {
	case FormatText:
		return text(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}
