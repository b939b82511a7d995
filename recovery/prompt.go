package recovery

import "fmt"

const outputFormat = `The output must be a valid JSON array of objects, each with:
- "action": one of the action names above
- "target": an object with the arguments of the action, using "element_name" for the element to act on
- "reason": a brief explanation of why this action is recommended

Do not include "action" inside the "target" object.
Do not return anything outside the JSON array.`

// PopupPrompt asks for the action that dismisses an unexpected screen.
func PopupPrompt(uiText string) string {
	return fmt.Sprintf(`You are an intelligent assistant analyzing the UI page source of a mobile app screen that unexpectedly interrupted an automated test.

Here is the extracted page structure:
%s

Based on the elements and their attributes, suggest the next best action to get past this screen. Your suggestion can use:
- press_element to tap a button or option (for example "Continue" or "Allow"), with the button text as target
- enter_text only if a text input field is clearly visible
- swipe if scrolling is required

%s`, uiText, outputFormat)
}

// InstructionPrompt asks for the actions that carry out a natural-language instruction.
func InstructionPrompt(instruction, uiText string) string {
	return fmt.Sprintf(`You are an intelligent assistant helping automate mobile app testing.

The user gave the following instruction:
%q

Here is the current screen, extracted from the UI page source:
%s

Recommend the action or actions that carry out the instruction on this screen. For each, choose:
1. The action: press_element to tap an element, enter_text only for a visible input field, swipe to scroll or navigate
2. The target element from the page source that matches the intent, matched by text, content-desc or resource-id

If the instruction names a position such as "first" or "second", pick the N-th clickable option of the list.

%s`, instruction, uiText, outputFormat)
}
