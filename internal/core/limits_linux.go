//go:build linux

package core

/*
domcheck — domain availability checks over DNS and WHOIS
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// fdWorkerLimit derives the largest worker count the RLIMIT_NOFILE soft limit
// can sustain. Zero means no limit could be determined.
func fdWorkerLimit() int {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		log.Debug().Err(err).Msg("Getrlimit(RLIMIT_NOFILE) failed")
		return 0
	}
	return workersForFDs(rl.Cur)
}
