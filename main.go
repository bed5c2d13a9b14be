// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/cilbind/cilbind/cmd/cilbind"

func main() {
	cmd.Execute()
}
