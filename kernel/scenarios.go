package kernel

import (
	"fmt"
	"time"

	"github.com/joshuapare/kmemcore/heap/container"
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/internal/logger"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// Scenario is a named self-check run against a booted kernel.
type Scenario struct {
	Name string
	Run  func(k *Kernel) (string, error)
}

// ScenarioResult is the outcome of one Scenario.
type ScenarioResult struct {
	Name     string
	Detail   string
	Err      error
	Duration time.Duration
}

// Passed reports whether the scenario succeeded.
func (r ScenarioResult) Passed() bool { return r.Err == nil }

// Scenarios are the boot-time self checks, in the order the kernel runs
// them.
var Scenarios = []Scenario{
	{Name: "simple-allocation", Run: simpleAllocation},
	{Name: "large-vec", Run: largeVec},
	{Name: "many-boxes", Run: manyBoxes},
	{Name: "many-boxes-long-lived", Run: manyBoxesLongLived},
	{Name: "reference-counted", Run: referenceCounted},
	{Name: "translate-vga", Run: translateVGA},
}

// RunScenarios runs every scenario in order. A panic from an allocation
// failure is reported as that scenario's error and does not stop the rest.
func (k *Kernel) RunScenarios() []ScenarioResult {
	results := make([]ScenarioResult, 0, len(Scenarios))
	for _, s := range Scenarios {
		results = append(results, k.RunScenario(s))
	}
	return results
}

// RunScenario runs s and recovers a panic into the result.
func (k *Kernel) RunScenario(s Scenario) (res ScenarioResult) {
	res.Name = s.Name
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%s: panic: %v", s.Name, r)
		}
		if res.Err != nil {
			logger.Warn("kernel: scenario failed", "name", s.Name, "error", res.Err)
		} else {
			logger.Debug("kernel: scenario passed", "name", s.Name, "detail", res.Detail)
		}
	}()
	res.Detail, res.Err = s.Run(k)
	return res
}

func simpleAllocation(k *Kernel) (string, error) {
	a := container.NewBox(k.Heap, 41)
	b := container.NewBox(k.Heap, 13)
	defer a.Drop()
	defer b.Drop()
	if a.Get() != 41 || b.Get() != 13 {
		return "", fmt.Errorf("boxes read back %d and %d", a.Get(), b.Get())
	}
	return fmt.Sprintf("box at %#x", a.Addr().Uint64()), nil
}

func largeVec(k *Kernel) (string, error) {
	const n = 1000
	v := container.NewVec(k.Heap)
	defer v.Drop()
	for i := range uint64(n) {
		v.Push(i)
	}
	if got, want := v.Sum(), uint64((n-1)*n/2); got != want {
		return "", fmt.Errorf("sum = %d, want %d", got, want)
	}
	return fmt.Sprintf("sum %d, capacity %d", v.Sum(), v.Cap()), nil
}

func manyBoxes(k *Kernel) (string, error) {
	n := k.cfg.HeapSize / 8
	for i := range n {
		b := container.NewBox(k.Heap, i)
		if got := b.Get(); got != i {
			b.Drop()
			return "", fmt.Errorf("box %d read back %d", i, got)
		}
		b.Drop()
	}
	return fmt.Sprintf("%d boxes", n), nil
}

func manyBoxesLongLived(k *Kernel) (string, error) {
	long := container.NewBox(k.Heap, 1)
	defer long.Drop()
	n := k.cfg.HeapSize / 8
	for i := range n {
		b := container.NewBox(k.Heap, i)
		b.Drop()
	}
	if long.Get() != 1 {
		return "", fmt.Errorf("long-lived box clobbered: %d", long.Get())
	}
	return fmt.Sprintf("%d boxes around %#x", n, long.Addr().Uint64()), nil
}

func referenceCounted(k *Kernel) (string, error) {
	a := container.NewShared(k.Heap, 7)
	b := a.Clone()
	if c := a.StrongCount(); c != 2 {
		a.Drop()
		b.Drop()
		return "", fmt.Errorf("count after clone = %d", c)
	}
	b.Drop()
	c := a.StrongCount()
	a.Drop()
	if c != 1 {
		return "", fmt.Errorf("count after drop = %d", c)
	}
	return "counts 2 then 1", nil
}

func translateVGA(k *Kernel) (string, error) {
	v := addr.NewVirtAddr(format.VGABufferAddr)
	p, ok := k.TranslateAddr(v)
	if !ok {
		return "", fmt.Errorf("%s is not mapped", v)
	}
	if p.Uint64() != format.VGABufferAddr {
		return "", fmt.Errorf("%s -> %s, want identity", v, p)
	}
	return p.String(), nil
}
