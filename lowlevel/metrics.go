// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lowlevel

import (
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/jacobsa/lowfuse/internal/fusekernel"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"
)

var (
	sessionPrometheusMetrics sync.Once

	sessionRequestsDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lowfuse",
			Subsystem: "session",
			Name:      "requests_duration_seconds",
			Help:      "Amount of time spent per kernel request, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		},
		[]string{"opcode", "status_code"})

	sessionNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lowfuse",
			Subsystem: "session",
			Name:      "notifications_total",
			Help:      "Number of notifications sent to the kernel.",
		},
		[]string{"code"})
)

func registerMetrics() {
	sessionPrometheusMetrics.Do(func() {
		prometheus.MustRegister(sessionRequestsDurationSeconds)
		prometheus.MustRegister(sessionNotificationsTotal)
	})
}

func statusCode(errno syscall.Errno) string {
	if errno == 0 {
		return "OK"
	}

	if name := unix.ErrnoName(errno); name != "" {
		return name
	}

	return strconv.FormatUint(uint64(errno), 10)
}

func observeRequest(op fusekernel.Opcode, errno syscall.Errno, d time.Duration) {
	sessionRequestsDurationSeconds.
		WithLabelValues(op.String(), statusCode(errno)).
		Observe(d.Seconds())
}

var notificationNames = map[int32]string{
	fusekernel.NotifyCodePoll:       "POLL",
	fusekernel.NotifyCodeInvalInode: "INVAL_INODE",
	fusekernel.NotifyCodeInvalEntry: "INVAL_ENTRY",
	fusekernel.NotifyCodeStore:      "STORE",
	fusekernel.NotifyCodeRetrieve:   "RETRIEVE",
	fusekernel.NotifyCodeDelete:     "DELETE",
}

func observeNotification(code int32) {
	name, ok := notificationNames[code]
	if !ok {
		name = strconv.Itoa(int(code))
	}

	sessionNotificationsTotal.WithLabelValues(name).Inc()
}
