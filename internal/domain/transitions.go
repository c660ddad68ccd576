package domain

// CanTransitionProject reports whether a project may move from one status to another.
// Self-loops and skipped stages are never legal.
func CanTransitionProject(from, to ProjectStatus) bool {
	switch from {
	case ProjectDraft:
		return to == ProjectSeekingDesigner || to == ProjectCancelled
	case ProjectSeekingDesigner:
		return to == ProjectInProgress || to == ProjectCancelled
	case ProjectInProgress:
		return to == ProjectCompleted || to == ProjectCancelled
	case ProjectCompleted, ProjectCancelled:
		return false
	}
	return false
}

func (s ProjectStatus) Terminal() bool {
	switch s {
	case ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectDraft, ProjectSeekingDesigner, ProjectInProgress, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// CanTransitionRequest reports whether a request may move from one status to another.
func CanTransitionRequest(from, to RequestStatus) bool {
	switch from {
	case RequestPending:
		return to == RequestProposalSubmitted || to == RequestRejected
	case RequestProposalSubmitted:
		return to == RequestAccepted || to == RequestRejected
	case RequestAccepted, RequestRejected:
		return false
	}
	return false
}

func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestAccepted, RequestRejected:
		return true
	}
	return false
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestProposalSubmitted, RequestAccepted, RequestRejected:
		return true
	}
	return false
}

// CanTransitionProposal reports whether a proposal may move from one status to another.
func CanTransitionProposal(from, to ProposalStatus) bool {
	switch from {
	case ProposalSubmitted:
		return to == ProposalAccepted || to == ProposalRejected
	case ProposalAccepted, ProposalRejected:
		return false
	}
	return false
}

func (s ProposalStatus) Terminal() bool {
	return s == ProposalAccepted || s == ProposalRejected
}
