// Package dynamo provides the numeric core shared by the integrators and the
// fixed-step driver.
//
//   - [State]: the ordered state vector (a scalar equation has length 1)
//   - [System]: a first-order right-hand side s' = f(x, s)
//   - [Integrator]: one fixed step of a numerical method
//   - [Trace]: the (x, state) samples of one run, initial point included
//
// # Thread Safety
//
// Systems built by the integrand package are stateless and may be shared.
// Integrators keep scratch buffers and must not be shared between goroutines;
// create one per run.
package dynamo
