package main

import "time"

// Touch loop defaults
const (
	defaultPollIntervalMS = 20
	maxPollIntervalMS     = 50

	// Contact thresholds per source. ESP32 touchRead counts drop below
	// defaultTouchThreshold on contact; a digital pad reads 0 or 1023.
	defaultTouchThreshold = 40
	gpioPadThreshold      = 511
	defaultTapMS          = 150
	defaultDoubleTapMS    = 300
	defaultLongPressMS    = 500
	defaultConfirmMS      = 50

	// MPR121 capacitive touch controller
	defaultMPR121Addr = 0x5A

	defaultSerialBaud    = 115200
	defaultSerialStaleMS = 500
)

// Display defaults (128x32 SSD1306 on I2C address 0x3C)
const (
	defaultDisplayWidth     = 128
	defaultDisplayHeight    = 32
	defaultDisplayTimeoutMS = 120000

	readyText        = "System Ready"
	lowBatteryText   = "Low Battery!"
	errorScreenTitle = "ERROR:"
)

// Audio defaults
const (
	defaultReadTimeoutMS = 500 // CamillaDSP websocket response timeout
	camillaDialAttempts  = 3
	camillaRetryDelay    = 500 * time.Millisecond
)

// Power defaults
const (
	defaultBatteryCheckMS  = 30000
	defaultLowBatteryPct   = 20
	defaultCriticalBattPct = 10

	// LiPo cell range used for the percentage estimate.
	batteryEmptyVolts = 3.0
	batteryFullVolts  = 4.2

	defaultEcoMaxKHz      = 1000000
	defaultUltraLowMaxKHz = 600000
)

const (
	statusLogInterval = 30 * time.Second
	snapshotTimeout   = time.Second
)
