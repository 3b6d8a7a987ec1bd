package core

import "testing"

func TestTickConversions(t *testing.T) {
	if TicksPerSecond(5) != 200000 {
		t.Errorf("Expected 200000 ticks/s, got %d", TicksPerSecond(5))
	}
	if TicksFromUS(1000, 5) != 200 {
		t.Errorf("Expected 200 ticks, got %d", TicksFromUS(1000, 5))
	}
	if TicksToUS(200, 5) != 1000 {
		t.Errorf("Expected 1000us, got %d", TicksToUS(200, 5))
	}
	if TicksPerSecond(0) != 0 || TicksFromUS(10, 0) != 0 {
		t.Error("Expected zero for a zero period")
	}
}

func TestRPMMeter(t *testing.T) {
	m := NewRPMMeter(4096, 1<<16)

	// first sample only primes
	if rpm, _ := m.Sample(1000, 100000); rpm != 0 {
		t.Errorf("Expected 0 rpm on the first sample, got %d", rpm)
	}

	// 4096 counts in 100ms is 10 rev/s
	rpm, forward := m.Sample(1000+4096, 100000)
	if rpm != 600 || !forward {
		t.Errorf("Expected 600 rpm forward, got %d %v", rpm, forward)
	}

	// backward across the wrap
	m2 := NewRPMMeter(4096, 1<<16)
	m2.Sample(100, 100000)
	rpm, forward = m2.Sample((1<<16)-1948, 100000)
	if rpm != 300 || forward {
		t.Errorf("Expected 300 rpm reverse, got %d %v", rpm, forward)
	}

	// stopped keeps the last direction
	rpm, forward = m2.Sample((1<<16)-1948, 100000)
	if rpm != 0 || forward {
		t.Errorf("Expected 0 rpm reverse, got %d %v", rpm, forward)
	}
	if m2.RPM() != 0 || m2.Forward() {
		t.Error("Accessors disagree with the last sample")
	}
}
