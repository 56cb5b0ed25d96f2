// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/karobarpk/karobar/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
