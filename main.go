// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/afml/afml/cmd/afml"

func main() {
	cmd.Execute()
}
