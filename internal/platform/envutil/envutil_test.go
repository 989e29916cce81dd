package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "nope")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", " 12 ")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 12 {
		t.Fatalf("Int: want=12 got=%d", got)
	}
}

func TestSecondsAllowsZero(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_TTL", "0")
	if got := Seconds("ENVUTIL_TEST_TTL", time.Minute); got != 0 {
		t.Fatalf("Seconds: want=0 got=%s", got)
	}
	t.Setenv("ENVUTIL_TEST_TTL", "-5")
	if got := Seconds("ENVUTIL_TEST_TTL", time.Minute); got != time.Minute {
		t.Fatalf("Seconds negative: want=1m got=%s", got)
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "off")
	if Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("Bool: want=false")
	}
	t.Setenv("ENVUTIL_TEST_LIST", "a, ,b")
	got := List("ENVUTIL_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: got=%v", got)
	}
}
