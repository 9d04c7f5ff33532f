package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

/*
Identity table maintenance.

Assigns an external tracker id to every tracker of the fleet that does not have
one yet and rewrites the identity file, sorted by tracker id, when something was
added.

Usage:

	provision <vehicles.csv> <identity.csv>

Example

```
./provision infrastructure-data/vehicles.csv res/yandex-vehicles.csv
```
*/

func main() {
	flag.Parse()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if flag.NArg() < 2 {
		fmt.Println("Missing arguments, example:")
		fmt.Println("provision infrastructure-data/vehicles.csv res/yandex-vehicles.csv")
		os.Exit(1)
	}

	args := flag.Args()
	added, err := Provision(args[len(args)-2], args[len(args)-1], NewExternalID)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Done, %d trackers provisioned", added)
}
