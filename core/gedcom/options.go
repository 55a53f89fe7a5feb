// Package gedcom converts GEDCOM text into a generic XML tree, imports that
// tree into family collections and writes collections back out as GEDCOM.
package gedcom

import "time"

// Options tunes conversion and import.
type Options struct {
	// DisableCharacterCheck keeps bytes outside printable ASCII in lines.
	DisableCharacterCheck bool
	// CombineContinuations merges CONT and CONC lines into their parent.
	CombineContinuations bool
	// ConcatenateWithSpace inserts a space before each CONC value.
	ConcatenateWithSpace bool
	// LivingAgeLimit is the age above which a person without death
	// evidence is taken as deceased.
	LivingAgeLimit int
	// Now is the clock used for the living-age check.
	Now func() time.Time
}

// DefaultOptions returns the settings an import uses.
func DefaultOptions() Options {
	return Options{
		CombineContinuations: true,
		LivingAgeLimit:       90,
		Now:                  time.Now,
	}
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}
