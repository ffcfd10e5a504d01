package renderer

// RenderStage is where the current frame stands in the deferred sequence.
type RenderStage int

const (
	Stopped RenderStage = iota
	Deferred
	Ambient
	Directional
	LightObject
	NeedsRedraw
)

func (s RenderStage) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Deferred:
		return "deferred"
	case Ambient:
		return "ambient"
	case Directional:
		return "directional"
	case LightObject:
		return "light_object"
	case NeedsRedraw:
		return "needs_redraw"
	}
	return "unknown"
}

type Call int

const (
	CallStart Call = iota
	CallGeometry
	CallAmbient
	CallDirectional
	CallPointLight
	CallSkybox
	CallLightObject
	CallFinish
)

func (c Call) String() string {
	switch c {
	case CallStart:
		return "start"
	case CallGeometry:
		return "geometry"
	case CallAmbient:
		return "ambient"
	case CallDirectional:
		return "directional"
	case CallPointLight:
		return "point_light"
	case CallSkybox:
		return "skybox"
	case CallLightObject:
		return "light_object"
	case CallFinish:
		return "finish"
	}
	return "unknown"
}

type Action int

const (
	ActionNone Action = iota
	// ActionRecord records the call's commands.
	ActionRecord
	// ActionSkip keeps the frame without recording anything.
	ActionSkip
	// ActionAbort drops the frame without submitting.
	ActionAbort
	// ActionRebuild recreates the swapchain targets and drops the frame.
	ActionRebuild
	// ActionSubmit ends the frame and submits it.
	ActionSubmit
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionRecord:
		return "record"
	case ActionSkip:
		return "skip"
	case ActionAbort:
		return "abort"
	case ActionRebuild:
		return "rebuild"
	case ActionSubmit:
		return "submit"
	}
	return "unknown"
}

// Transition is the frame state machine. It has no side effects.
func Transition(stage RenderStage, call Call) (RenderStage, Action) {
	if stage == NeedsRedraw {
		return Stopped, ActionRebuild
	}

	switch call {
	case CallStart:
		if stage == Stopped {
			return Deferred, ActionRecord
		}
	case CallGeometry:
		if stage == Deferred {
			return Deferred, ActionRecord
		}
	case CallAmbient:
		switch stage {
		case Deferred:
			return Ambient, ActionRecord
		case Ambient:
			return Ambient, ActionSkip
		}
	case CallDirectional, CallPointLight, CallSkybox:
		if stage == Ambient || stage == Directional {
			return Directional, ActionRecord
		}
	case CallLightObject:
		if stage == Directional || stage == LightObject {
			return LightObject, ActionRecord
		}
	case CallFinish:
		switch stage {
		case Stopped:
			return Stopped, ActionNone
		case Deferred, Ambient, Directional, LightObject:
			return Stopped, ActionSubmit
		}
	}

	return Stopped, ActionAbort
}
