package main

import (
	"github.com/arlindoconceicao/vertex-sub000/cmd"
	"github.com/golang/glog"
)

func main() {
	defer glog.Flush()
	cmd.Execute()
}
