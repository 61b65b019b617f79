// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package midea

import "fmt"

// AnomalyType represents different types of status report anomalies
type AnomalyType int

const (
	AnomalyInvalidMode AnomalyType = iota
	AnomalyInvalidFanSpeed
	AnomalyInvalidSwing
	AnomalyInvalidTemp
	AnomalyInvalidHumidity
	AnomalyApplianceError
)

// ValidationError represents a status report validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateResponse checks a decoded status report for values the appliance
// should never report. Returns an empty slice if the report looks sane.
func ValidateResponse(r Response) []ValidationError {
	errors := []ValidationError{}

	if _, ok := modeNames[r.OperationalMode]; !ok {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidMode,
			Message: fmt.Sprintf("Invalid operational mode=%d", r.OperationalMode),
			Details: map[string]interface{}{"mode": uint8(r.OperationalMode)},
		})
	}

	// Fan speed may also be a raw percentage between the named steps
	if r.FanSpeed > FanAuto {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidFanSpeed,
			Message: fmt.Sprintf("Invalid fan speed=%d (max %d)", r.FanSpeed, FanAuto),
			Details: map[string]interface{}{"fan": uint8(r.FanSpeed), "max": uint8(FanAuto)},
		})
	}

	if _, ok := swingNames[r.SwingMode]; !ok {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidSwing,
			Message: fmt.Sprintf("Invalid swing mode=0x%X", uint8(r.SwingMode)),
			Details: map[string]interface{}{"swing": uint8(r.SwingMode)},
		})
	}

	if r.IndoorTemperature < -25 || r.IndoorTemperature > 60 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidTemp,
			Message: fmt.Sprintf("Indoor temperature out of range: %.1f°C", r.IndoorTemperature),
			Details: map[string]interface{}{"indoor": r.IndoorTemperature},
		})
	}

	if r.Humidity > 100 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidHumidity,
			Message: fmt.Sprintf("Humidity out of range: %d%%", r.Humidity),
			Details: map[string]interface{}{"humidity": r.Humidity},
		})
	}

	if r.ApplianceError {
		errors = append(errors, ValidationError{
			Type:    AnomalyApplianceError,
			Message: "Appliance reports an error condition",
		})
	}

	return errors
}
