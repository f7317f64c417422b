package requirements

import "time"

// AgeAt returns the completed years between birth and at. The birthday
// counts as completed on its calendar day.
func AgeAt(birth, at time.Time) int {
	age := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		age--
	}
	return age
}
