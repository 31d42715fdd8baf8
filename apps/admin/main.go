package main

import (
	"log"
	"os"

	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/storage/database"
)

func main() {
	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags)

	conf, err := core.NewConfig()
	if err != nil {
		std.Fatal(err)
	}

	db, err := database.Open(conf)
	if err != nil {
		std.Fatal(err)
	}

	cli := &commandLine{store: database.NewStore(db), db: db}
	if err := cli.run(os.Args); err != nil && err != errHelp {
		std.Fatal(err)
	}
}
