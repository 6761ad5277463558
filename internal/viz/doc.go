// Package viz renders solve results in the terminal.
//
//   - [RenderResult]: styled narrative, solutions and diagnostics
//   - [PlotTrace]: one asciigraph chart per trace column
//   - [RunInteractive]: bubbletea solver with preset browsing
//
// # Key Bindings
//
//	Enter  - Solve the current equation
//	Tab    - Cycle method (symbolic, numeric-euler, numeric-rk4)
//	Ctrl+P - Browse presets
//	T      - Cycle color themes (result view)
//	Esc    - Back to the editor
package viz
