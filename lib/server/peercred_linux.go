// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

type credentials struct {
	PID int32
	UID uint32
}

// peerCredentials returns the kernel-reported credentials of the
// process on the other end of a unix socket.
func peerCredentials(conn net.Conn) (credentials, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return credentials{}, errors.New("not a unix socket")
	}
	raw, err := unixConn.SyscallConn()
	if err != nil {
		return credentials{}, err
	}

	var (
		ucred     *unix.Ucred
		socketErr error
	)
	err = raw.Control(func(fd uintptr) {
		ucred, socketErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return credentials{}, err
	}
	if socketErr != nil {
		return credentials{}, socketErr
	}
	return credentials{PID: ucred.Pid, UID: ucred.Uid}, nil
}
