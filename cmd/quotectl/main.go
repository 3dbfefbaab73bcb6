// Command quotectl runs administrative tasks against the quotation database.
//
//	quotectl migrate up
//	quotectl migrate status
//	quotectl create-admin --name Ana --email ana@x.com --handle anaadmin --password '...'
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
