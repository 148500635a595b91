package main

import "github.com/spheroseg/segeditor/cmd/segtool/cmd"

func main() {
	cmd.Execute()
}
