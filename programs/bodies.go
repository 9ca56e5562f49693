package programs

import "sort"

// Count returns a body that logs arg steps and schedules after each one.
func Count(env Env) func(int) {
	return func(n int) {
		rt := env.RT
		for i := 1; i <= n; i++ {
			env.printf("thread %d: %d/%d", rt.Current(), i, n)
			rt.Schedule()
		}
	}
}

// Spin returns a body that schedules arg times without output, waiting for a
// tick before each step when env has a tick source.
func Spin(env Env) func(int) {
	return func(n int) {
		for i := 0; i < n; i++ {
			if env.Ticks != nil {
				<-env.Ticks
			}
			env.RT.Schedule()
		}
	}
}

// Echo returns a body that logs its argument once and returns.
func Echo(env Env) func(int) {
	return func(arg int) {
		env.printf("thread %d: arg %d", env.RT.Current(), arg)
	}
}

var bodies = map[string]func(Env) func(int){
	"count": Count,
	"spin":  Spin,
	"echo":  Echo,
}

// Body returns the thread body called name bound to env.
func Body(name string, env Env) (func(int), bool) {
	mk, ok := bodies[name]
	if !ok {
		return nil, false
	}
	return mk(env), true
}

// BodyNames returns the names accepted by Body in sorted order.
func BodyNames() []string {
	names := make([]string, 0, len(bodies))
	for name := range bodies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
