// Command stackroute runs routing scenarios over heterogeneous protocol
// stacks.
package main

import "github.com/sarchlab/stackroute/stackroute/cmd"

func main() {
	cmd.Execute()
}
