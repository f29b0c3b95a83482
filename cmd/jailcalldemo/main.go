// Command jailcalldemo walks through jailcall's basic usage end to end,
// the same way the teacher's examples/basic/main.go walks through
// AutoBreaker: plain main(), no flags, just calls and printed output.
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vnykmshr/jailcall"
)

func main() {
	fmt.Println("=== jailcall demo ===")

	d := jailcall.NewDefender(jailcall.WithCommandConfig("widget-service", jailcall.MsgConfig{
		MaxFailures:  3,
		CallTimeout:  50 * time.Millisecond,
		ResetTimeout: 2 * time.Second,
		Dispatcher:   jailcall.DispatcherDefault,
	}))
	defer d.Close()

	ctx := context.Background()

	fmt.Println("\n1. Successful calls:")
	ok := jailcall.Async(func(ctx context.Context) (string, error) { return "ok", nil })
	for i := 0; i < 3; i++ {
		v, err := jailcall.Submit(ctx, d, "widget-service", ok)
		fmt.Printf("   attempt %d: value=%v err=%v\n", i+1, v, err)
	}

	fmt.Println("\n2. Calls with a static fallback:")
	withFallback := jailcall.Async(func(ctx context.Context) (string, error) {
		return "", errors.New("widget service unavailable")
	}).WithStaticFallback("cached-widget")
	v, err := jailcall.Submit(ctx, d, "widget-service", withFallback)
	fmt.Printf("   value=%v err=%v\n", v, err)

	fmt.Println("\n3. Slow calls tripping the breaker (max-failures=3, call-timeout=50ms):")
	slow := jailcall.Async(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	for i := 0; i < 3; i++ {
		_, err := jailcall.Submit(ctx, d, "widget-service", slow)
		fmt.Printf("   attempt %d: err=%v\n", i+1, err)
	}

	fmt.Println("   waiting for the stats window to tick...")
	time.Sleep(1100 * time.Millisecond)

	fmt.Println("\n4. Calls while the breaker is open (rejected without running):")
	for i := 0; i < 2; i++ {
		_, err := jailcall.Submit(ctx, d, "widget-service", ok)
		fmt.Printf("   attempt %d: err=%v\n", i+1, err)
	}

	fmt.Println("\n=== demo complete ===")
}
