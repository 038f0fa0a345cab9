package gyro

import "fmt"

// InvalidSampleCountError reports an accumulator snapshot with no usable
// samples. Calibration refuses to divide by it: a silent NaN center would
// corrupt every subsequent angle read.
type InvalidSampleCountError struct {
	Count int64
}

func (e *InvalidSampleCountError) Error() string {
	return fmt.Sprintf("gyro: invalid accumulator sample count %d", e.Count)
}
