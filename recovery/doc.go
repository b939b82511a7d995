// Package recovery classifies runner failures and attempts model-guided
// recovery from unexpected screen states such as popups.
//
// Handler implements the error path: a failure whose code classifies as a
// screen popup, reported together with the current UI page source, is sent
// to a model that suggests which element to press. The first suggestion that
// maps to a known keyword is executed.
//
// ActionHandler implements the instruction path used by AI-driven keywords:
// a natural-language instruction plus the page source yields suggestions,
// every one of which is executed when its keyword is known.
package recovery
