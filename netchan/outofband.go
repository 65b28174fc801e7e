// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package netchan

import (
	"fmt"
	"strconv"
	"strings"
)

// Request is a parsed connectionless negotiation message (spec.md §4.3,
// "Out-of-band": connect, getchallenge, challenge N, accept, reject
// <reason>).
type Request struct {
	Kind   string
	Arg    string
}

// BuildOutOfBand frames msg as a connectionless datagram.
func BuildOutOfBand(msg string) []byte {
	return append(append([]byte{}, OutOfBand[:]...), []byte(msg)...)
}

// ParseOutOfBand splits a datagram already confirmed via IsOutOfBand
// into its ASCII command and trailing argument.
func ParseOutOfBand(pkt []byte) (Request, error) {
	if !IsOutOfBand(pkt) {
		return Request{}, fmt.Errorf("netchan: not an out-of-band packet")
	}
	body := strings.TrimRight(string(pkt[4:]), "\x00")
	fields := strings.SplitN(body, " ", 2)
	req := Request{Kind: fields[0]}
	if len(fields) == 2 {
		req.Arg = fields[1]
	}
	return req, nil
}

// Challenge formats the server's reply to getchallenge.
func Challenge(n int64) []byte {
	return BuildOutOfBand("challenge " + strconv.FormatInt(n, 10))
}

// ParseChallenge extracts the numeric challenge from a "challenge N"
// request's argument.
func ParseChallenge(req Request) (int64, error) {
	if req.Kind != "challenge" {
		return 0, fmt.Errorf("netchan: not a challenge message: %q", req.Kind)
	}
	return strconv.ParseInt(req.Arg, 10, 64)
}

// Reject formats a rejection with a human-readable reason.
func Reject(reason string) []byte {
	return BuildOutOfBand("reject " + reason)
}
