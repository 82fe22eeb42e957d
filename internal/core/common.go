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
	"context"
	"time"
)

const (
	// WorkerQueueCapacity is the capacity of a worker's queue.
	WorkerQueueCapacity = 256
)

// Job is a unit of work executed by a scheduler worker.
type Job struct {
	// Key shards the job to a worker; equal keys land on the same worker.
	Key string
	// Run does the work. A panic is recovered and counted, not propagated.
	Run       JobFunc
	Ctx       context.Context
	CreatedAt time.Time
}

// JobFunc is the function signature for job bodies.
type JobFunc func(ctx context.Context) error
