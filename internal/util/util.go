/*
Package util includes utility/helper functions that may be useful to other modules.
*/
package util

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
)

// ExpandUser expands '~' to user's home directory, if found, otherwise returns original path
func ExpandUser(path string) string {
	usr, err := user.Current()
	if err != nil {
		return path
	}
	if path == "~" {
		return usr.HomeDir
	} else if strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return filepath.Join(usr.HomeDir, path[2:])
	}
	return path
}

// AbsPath returns absolute path after expanding '~' to user's home dir
func AbsPath(path string) (string, error) {
	return filepath.Abs(ExpandUser(path))
}

// FileExists checks if a file exists at the given path.
// It returns a boolean indicating whether the file exists, and an error if the
// path refers to a non-regular file, e.g., a directory.
func FileExists(path string) (exists bool, err error) {
	var fileInfo fs.FileInfo
	fileInfo, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = nil
		}
		return
	}
	if !fileInfo.Mode().IsRegular() {
		err = fmt.Errorf("%s not a file", path)
		return
	}
	exists = true
	return
}

// DeviceExists checks if a device node exists at the given path.
// It returns an error if the path refers to anything other than a device, e.g., a
// regular file.
func DeviceExists(path string) (exists bool, err error) {
	var fileInfo fs.FileInfo
	fileInfo, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = nil
		}
		return
	}
	if fileInfo.Mode()&fs.ModeDevice == 0 {
		err = fmt.Errorf("%s not a device", path)
		return
	}
	exists = true
	return
}

func trimHexPrefix(hexStr string) string {
	if strings.HasPrefix(hexStr, "0x") || strings.HasPrefix(hexStr, "0X") {
		return hexStr[2:]
	}
	return hexStr
}

// ParseHexUint32 parses a 32-bit hex value, optionally prefixed with "0x" or "0X".
func ParseHexUint32(hexStr string) (uint32, error) {
	v, err := strconv.ParseUint(trimHexPrefix(hexStr), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid 32-bit hex value: %q", hexStr)
	}
	return uint32(v), nil
}

// ParseHexUint32List parses each string with ParseHexUint32.
func ParseHexUint32List(hexStrs []string) ([]uint32, error) {
	vals := make([]uint32, 0, len(hexStrs))
	for _, s := range hexStrs {
		v, err := ParseHexUint32(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}
