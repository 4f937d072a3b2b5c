//go:build linux || darwin

// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Confines the server process to the chroot directory if given, and switches to the user id if non-negative
func MakeSandbox(chroot string, setuid int, log zerolog.Logger) error {
	if len(chroot) > 0 {
		log.Info().Msgf("Changing filesystem root to %s...", chroot)
		if err := syscall.Chroot(chroot); err != nil {
			return errors.Wrapf(err, "chroot(%s)", chroot)
		}
		if err := os.Chdir("/"); err != nil {
			return errors.Wrapf(err, "chdir(%s)", chroot)
		}
	}
	if setuid >= 0 {
		log.Info().Msgf("Setting user id from %d/%d to %d", syscall.Getuid(), syscall.Geteuid(), setuid)
		if err := syscall.Setuid(setuid); err != nil {
			return errors.Wrapf(err, "setuid(%d)", setuid)
		}
	}
	return nil
}
