// This binary is the canonical way to run a twine node: a thin wrapper
// around the router core handling process bootstrap and CLI parsing.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/deavmi/twine/driver/udplink"
	"github.com/deavmi/twine/identity"
	"github.com/deavmi/twine/internal/xlog"
	"github.com/deavmi/twine/router"
)

var (
	keyfile = flag.String("keyfile", "twine.key",
		"path to the keyfile to load or create")
	ifaceName = flag.String("iface", "",
		"interface to discover and exchange advertisements on")
	port = flag.Int("port", 34321,
		"UDP port used for the link-local multicast link")
	printAddr = flag.Bool("print-address", false,
		"print this node's own public key (NL address) and exit")
)

func main() {
	flag.Parse()

	id, err := identity.LoadOrCreate(*keyfile)
	if err != nil {
		xlog.Get().Error("failed to load identity", "err", err)
		os.Exit(1)
	}

	if *printAddr {
		fmt.Println(id.PublicKey())
		return
	}

	r := router.New(id, func(p router.UserDataPkt) {
		xlog.Get().Info("received data", "src", p.Src, "bytes", len(p.Payload))
	}, router.Config{})

	if *ifaceName != "" {
		iface, err := net.InterfaceByName(*ifaceName)
		if err != nil {
			xlog.Get().Error("failed to find interface", "iface", *ifaceName, "err", err)
			os.Exit(1)
		}
		l, err := udplink.New(iface, *port)
		if err != nil {
			xlog.Get().Error("failed to start udplink", "err", err)
			os.Exit(1)
		}
		r.LinkManager().AddLink(l)
	}

	r.Start()
	xlog.Get().Info("twine node started", "address", encodedAddress(id.PublicKey().String()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	xlog.Get().Info("shutting down")
	r.Stop()
}

func encodedAddress(s string) string {
	if len(s) <= 16 {
		return s
	}
	return s[:16] + "…"
}
