package navigation

import "sync"

// Route identifies a navigable application view.
type Route string

const (
	RouteLogin     Route = "Login"
	RouteBills     Route = "Bills"
	RouteNewBill   Route = "NewBill"
	RouteDashboard Route = "Dashboard"
)

func (r Route) String() string {
	return string(r)
}

// Navigator is a pure side-effecting navigation call. No return value is
// consumed by the core.
type Navigator interface {
	Navigate(route Route)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(route Route)

func (f NavigatorFunc) Navigate(route Route) {
	f(route)
}

// Recorder remembers every requested route. Used by the view layer to pick
// up the current location and by tests to assert navigation.
type Recorder struct {
	routes []Route
	mu     sync.Mutex
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Navigate(route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = append(r.routes, route)
}

// Current returns the last requested route, or RouteLogin before any
// navigation happened.
func (r *Recorder) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.routes) == 0 {
		return RouteLogin
	}

	return r.routes[len(r.routes)-1]
}

// Routes returns the full navigation history.
func (r *Recorder) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()

	routes := make([]Route, len(r.routes))
	copy(routes, r.routes)

	return routes
}
