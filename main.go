package main

import (
	"github.com/dayuer/midimapper-go/cmd"
)

func main() {
	cmd.Execute()
}
