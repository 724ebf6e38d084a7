// The main package for the procurement-intel executable.
package main

import (
	"github.com/Texasdada13/procurement-intel-tool/cmd"
)

func main() {
	cmd.Execute()
}
