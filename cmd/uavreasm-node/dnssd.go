package main

import (
	"context"

	"github.com/brutella/dnssd"

	"github.com/charmbracelet/log"
)

// dnssdServiceType advertises this node as a UAVCAN/UDP reassembly
// endpoint, the same mDNS/DNS-SD mechanism the teacher uses to spare an
// operator from typing in IP addresses by hand.
const dnssdServiceType = "_uavreasm._udp"

func announceDNSSD(logger *log.Logger, nodeName string, port int) {
	var cfg = dnssd.Config{
		Name: nodeName,
		Type: dnssdServiceType,
		Port: port,
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		logger.Error("dns-sd: failed to create service", "err", err)
		return
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		logger.Error("dns-sd: failed to create responder", "err", err)
		return
	}

	if _, err := rp.Add(sv); err != nil {
		logger.Error("dns-sd: failed to add service", "err", err)
		return
	}

	logger.Info("dns-sd: announcing node", "name", nodeName, "type", dnssdServiceType)

	go func() {
		if err := rp.Respond(context.Background()); err != nil {
			logger.Error("dns-sd: responder error", "err", err)
		}
	}()
}
