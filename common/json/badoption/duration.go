package badoption

import (
	"time"

	"github.com/sagernet/sing-stream/common/json"
)

// Duration is a time.Duration written as a Go duration string, such as "1.5s".
type Duration time.Duration

func (d Duration) Build() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal((time.Duration)(d).String())
}

func (d *Duration) UnmarshalJSON(bytes []byte) error {
	var value string
	err := json.Unmarshal(bytes, &value)
	if err != nil {
		return err
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}
