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

// workersForFDs converts an open-file soft limit into a worker ceiling.
func workersForFDs(softLimit uint64) int {
	if softLimit <= fdReserve {
		return 1
	}
	n := (softLimit - fdReserve) / fdsPerWorker
	if n > MaxWorkers {
		return MaxWorkers
	}
	if n < 1 {
		return 1
	}
	return int(n)
}
