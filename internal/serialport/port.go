// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package serialport

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"
)

// LineSource yields newline-terminated lines from the controller receiver.
type LineSource interface {
	ReadLine() (string, error)
	Close() error
}

type readerSource struct {
	rc     io.ReadCloser
	reader *bufio.Reader
}

// NewReaderSource wraps any stream (serial port, captured log file, pipe)
// as a LineSource.
func NewReaderSource(rc io.ReadCloser) LineSource {
	return &readerSource{rc: rc, reader: bufio.NewReader(rc)}
}

// ReadLine returns the next line without its trailing "\r\n". A final
// unterminated line is returned first; the next call reports io.EOF.
func (s *readerSource) ReadLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err == io.EOF && line != "" {
		return line, nil
	}
	return line, err
}

func (s *readerSource) Close() error { return s.rc.Close() }

// Open opens the receiver's USB serial port, 8N1.
func Open(portName string, baudRate int) (LineSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s at %d baud: %w", portName, baudRate, err)
	}
	return NewReaderSource(port), nil
}
