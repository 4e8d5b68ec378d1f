package sample

import "fmt"

var errRateZero = fmt.Errorf("rate must be greater than zero")
