package utils

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("FV_TEST_STR", "set")
	if got := GetEnv("FV_TEST_STR", "default", nil); got != "set" {
		t.Fatalf("want=%q got=%q", "set", got)
	}
	if got := GetEnv("FV_TEST_STR_MISSING", "default", nil); got != "default" {
		t.Fatalf("want=%q got=%q", "default", got)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("FV_TEST_INT", "42")
	if got := GetEnvAsInt("FV_TEST_INT", 7, nil); got != 42 {
		t.Fatalf("want=42 got=%d", got)
	}
	t.Setenv("FV_TEST_INT", "not-a-number")
	if got := GetEnvAsInt("FV_TEST_INT", 7, nil); got != 7 {
		t.Fatalf("unparseable: want=7 got=%d", got)
	}
}

func TestGetEnvAsInt64(t *testing.T) {
	t.Setenv("FV_TEST_INT64", "5368709120")
	if got := GetEnvAsInt64("FV_TEST_INT64", 1, nil); got != 5368709120 {
		t.Fatalf("want=5368709120 got=%d", got)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	cases := map[string]bool{
		"1": true, "true": true, "YES": true, "on": true,
		"0": false, "false": false, "No": false, "off": false,
	}
	for raw, want := range cases {
		t.Setenv("FV_TEST_BOOL", raw)
		if got := GetEnvAsBool("FV_TEST_BOOL", !want, nil); got != want {
			t.Fatalf("%q: want=%v got=%v", raw, want, got)
		}
	}
	t.Setenv("FV_TEST_BOOL", "maybe")
	if got := GetEnvAsBool("FV_TEST_BOOL", true, nil); !got {
		t.Fatalf("unparseable keeps default")
	}
}
