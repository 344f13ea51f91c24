/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pool

import "github.com/prometheus/client_golang/prometheus"

type collector[R Resource] struct {
	pool *Pool[R]

	maxSize          *prometheus.Desc
	active           *prometheus.Desc
	available        *prometheus.Desc
	inUse            *prometheus.Desc
	acquires         *prometheus.Desc
	exhausted        *prometheus.Desc
	creationFailures *prometheus.Desc
	replaced         *prometheus.Desc
	releases         *prometheus.Desc
}

// NewCollector exports the pool Stats as Prometheus metrics named
// <namespace>_pool_*.
func NewCollector[R Resource](p *Pool[R], namespace string, labels prometheus.Labels) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, nil, labels)
	}
	return &collector[R]{
		pool:             p,
		maxSize:          desc("resources_max", "Maximum number of resources in the pool."),
		active:           desc("resources_active", "Live resources owned by the pool."),
		available:        desc("resources_available", "Idle resources ready to be borrowed."),
		inUse:            desc("resources_in_use", "Resources currently lent out."),
		acquires:         desc("acquire_total", "Acquire attempts."),
		exhausted:        desc("acquire_exhausted_total", "Acquire attempts that timed out."),
		creationFailures: desc("creation_failures_total", "Resources that could not be created."),
		replaced:         desc("replaced_total", "Invalid resources discarded on checkout or release."),
		releases:         desc("release_total", "Release calls."),
	}
}

func (c *collector[R]) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.maxSize
	ch <- c.active
	ch <- c.available
	ch <- c.inUse
	ch <- c.acquires
	ch <- c.exhausted
	ch <- c.creationFailures
	ch <- c.replaced
	ch <- c.releases
}

func (c *collector[R]) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()
	gauge := func(d *prometheus.Desc, v int) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge(c.maxSize, s.MaxSize)
	gauge(c.active, s.Active)
	gauge(c.available, s.Available)
	gauge(c.inUse, s.InUse)
	counter(c.acquires, s.Acquires)
	counter(c.exhausted, s.Exhausted)
	counter(c.creationFailures, s.CreationFailures)
	counter(c.replaced, s.Replaced)
	counter(c.releases, s.Releases)
}
