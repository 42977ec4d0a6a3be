package queue

// ResourceMonitor reports current process resource usage so the queue
// can gate admission and auto-scaling decisions on it. Production
// deployments back this with /proc or cgroup reads; tests substitute a
// fixed-value stub.
type ResourceMonitor interface {
	MemoryUsedMB() int
	CPUPercent() float64
}

// StaticResourceMonitor always reports the same values. It is the
// default monitor: a system with no better signal behaves as if
// resources are abundant, matching the design note that an
// unavailable monitor should not itself become a source of rejection.
type StaticResourceMonitor struct {
	MemMB int
	CPU   float64
}

func (s StaticResourceMonitor) MemoryUsedMB() int    { return s.MemMB }
func (s StaticResourceMonitor) CPUPercent() float64 { return s.CPU }
