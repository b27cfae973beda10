// Package export renders schedules for downstream consumption.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/chargeplan/core/model"
)

// WriteJSON writes the full schedule to w in JSON format.
func WriteJSON(w io.Writer, sched *model.Schedule) error {
	enc := json.NewEncoder(w)
	return enc.Encode(sched)
}

// WriteCSV writes the schedule to w as one row per vehicle and interval.
// Intervals where a vehicle draws no power are skipped.
func WriteCSV(w io.Writer, sched *model.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"vehicle_id", "interval", "power_kw"}); err != nil {
		return err
	}
	for _, s := range sched.Sessions {
		for t, kw := range s.PowerKW {
			if kw == 0 {
				continue
			}
			rec := []string{
				s.VehicleID,
				strconv.Itoa(t),
				strconv.FormatFloat(kw, 'f', -1, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
