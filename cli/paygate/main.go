package main

import "github.com/tachi-labs/paygate/cli/paygate/cmd"

func main() {
	cmd.Execute()
}
