package credits

// Basis names the pricing rule that produced a cost.
type Basis string

const (
	BasisScript          Basis = "script"
	BasisShortForm       Basis = "short_form"
	BasisLongForm        Basis = "long_form"
	BasisUnknownDuration Basis = "unknown_duration"
)

const (
	// LongFormThresholdSeconds is the duration above which media is long form.
	LongFormThresholdSeconds = 60.0

	// ScriptCost is charged for every script submission regardless of length.
	ScriptCost Amount = 500
	// ShortFormCost is charged for media at or under the long-form threshold.
	ShortFormCost Amount = 1000
	// LongFormCost is charged for media over the long-form threshold.
	LongFormCost Amount = 2000
	// UnknownDurationCost is the fallback when no duration could be determined.
	// It prices the media as short form.
	UnknownDurationCost = ShortFormCost
)

// Quote is the outcome of pricing one job.
type Quote struct {
	Amount Amount
	Basis  Basis
}

// Cost prices a job. Script submissions ignore duration. A nil duration is an
// unknown duration and takes the named fallback tier.
func Cost(script bool, durationSeconds *float64) Quote {
	if script {
		return Quote{Amount: ScriptCost, Basis: BasisScript}
	}
	if durationSeconds == nil {
		return Quote{Amount: UnknownDurationCost, Basis: BasisUnknownDuration}
	}
	if *durationSeconds > LongFormThresholdSeconds {
		return Quote{Amount: LongFormCost, Basis: BasisLongForm}
	}
	return Quote{Amount: ShortFormCost, Basis: BasisShortForm}
}

// AdmissionMinimum is the balance a caller must hold before a submission of
// the given kind is accepted. It holds no funds.
func AdmissionMinimum(script bool) Amount {
	if script {
		return ScriptCost
	}
	return ShortFormCost
}
