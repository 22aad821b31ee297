package telemetry

// Command is an operator-issued instruction addressed to one machine.
// Commands are ephemeral: forwarded to the machine's live channel and logged
// as a synthetic audit alert, never persisted.
type Command struct {
	MachineID string `json:"machineId"`
	Name      string `json:"command"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// The commands machines accept.
const (
	CommandStart          = "start"
	CommandStop           = "stop"
	CommandEmergencyStop  = "emergency_stop"
	CommandResetEmergency = "reset_emergency"
	CommandMaintenance    = "maintenance_mode"
)

// ValidCommand reports whether name is one of the supported machine commands.
func ValidCommand(name string) bool {
	switch name {
	case CommandStart, CommandStop, CommandEmergencyStop, CommandResetEmergency, CommandMaintenance:
		return true
	}
	return false
}
