package model

// AgreementActions lists the controls the console may offer for an agreement.
type AgreementActions struct {
	Edit      bool
	Delete    bool
	Restore   bool
	Calculate bool
}

// ActionsFor derives the legal actions for a status. Calculation is never offered.
func ActionsFor(status AgreementStatus, lockCalculated bool) AgreementActions {
	return AgreementActions{
		Edit:    status == AgreementStatusReadyForCalculation || (status == AgreementStatusCalculated && !lockCalculated),
		Delete:  CanTransition(status, AgreementStatusDeleted),
		Restore: CanTransition(status, AgreementStatusReadyForCalculation),
	}
}

// CanTransition reports whether the status change is part of the lifecycle table.
func CanTransition(from, to AgreementStatus) bool {
	switch to {
	case AgreementStatusDeleted:
		return from == AgreementStatusReadyForCalculation || from == AgreementStatusCalculated
	case AgreementStatusReadyForCalculation:
		return from == AgreementStatusDeleted
	default:
		return false
	}
}
