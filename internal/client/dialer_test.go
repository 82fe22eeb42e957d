package client

import (
	"testing"
	"time"
)

func resetDialer() {
	sharedDialerLock.Lock()
	sharedDialer = nil
	sharedConfig = Config{}
	dialerReady = false
	sharedDialerLock.Unlock()
}

func TestInitDialerFillsDefaults(t *testing.T) {
	resetDialer()

	InitDialer(&Config{})
	d := GetDialer()

	if d.Timeout != DialTimeout {
		t.Fatalf("expected dial timeout %v, got %v", DialTimeout, d.Timeout)
	}
	if d.KeepAlive == 0 {
		t.Fatalf("expected keep-alive defaulted, got %v", d.KeepAlive)
	}
	if cfg := GetConfig(); cfg.ReadTimeout != ReadTimeout {
		t.Fatalf("expected read timeout %v, got %v", ReadTimeout, cfg.ReadTimeout)
	}
}

func TestGetDialerLazilyInitializes(t *testing.T) {
	resetDialer()

	if d := GetDialer(); d == nil {
		t.Fatalf("expected a dialer")
	}
}

func TestInitDialerKeepsOverrides(t *testing.T) {
	resetDialer()

	InitDialer(&Config{DialTimeout: 2 * time.Second, ReadTimeout: 750 * time.Millisecond})
	if d := GetDialer(); d.Timeout != 2*time.Second {
		t.Fatalf("expected dial timeout override, got %v", d.Timeout)
	}
	if cfg := GetConfig(); cfg.ReadTimeout != 750*time.Millisecond {
		t.Fatalf("expected read timeout override, got %v", cfg.ReadTimeout)
	}
}
