// Package sim models factory machines for the telemetry simulator. Each
// Machine random-walks its sensor values between ticks and reacts to remote
// commands the way a real controller would.
package sim
