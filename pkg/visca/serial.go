// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"errors"
	"fmt"
	"io"
	"time"

	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
)

// BaudRate is the fixed VISCA line speed
const BaudRate = 9600

// tarmPollInterval is the read timeout used to poll a tarm port
const tarmPollInterval = 100 * time.Millisecond

// OpenSerial opens portName with go.bug.st/serial at 9600 8N1 and drops any
// input already buffered by the driver.
func OpenSerial(portName string) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush serial port %s: %v", portName, err)
	}

	return port, nil
}

// tarmConn adapts a tarm port: a poll that timed out reads as EOF there,
// which is not the end of the stream.
type tarmConn struct {
	port *tarm.Port
}

func (c *tarmConn) Read(p []byte) (int, error) {
	n, err := c.port.Read(p)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (c *tarmConn) Write(p []byte) (int, error) {
	return c.port.Write(p)
}

func (c *tarmConn) Close() error {
	return c.port.Close()
}

// OpenSerialTarm opens portName with github.com/tarm/serial at 9600 8N1 and
// flushes stale input.
func OpenSerialTarm(portName string) (Connection, error) {
	port, err := tarm.OpenPort(&tarm.Config{
		Name:        portName,
		Baud:        BaudRate,
		Size:        8,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
		ReadTimeout: tarmPollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush serial port %s: %v", portName, err)
	}

	return &tarmConn{port: port}, nil
}

// OpenerFor returns the opener for a serial driver name: "bugst" (default)
// or "tarm".
func OpenerFor(driver string) (Opener, error) {
	switch driver {
	case "", "bugst":
		return OpenSerial, nil
	case "tarm":
		return OpenSerialTarm, nil
	default:
		return nil, fmt.Errorf("unknown serial driver %q (want bugst or tarm)", driver)
	}
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %v", err)
	}
	return ports, nil
}
