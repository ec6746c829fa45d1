package artifact

const textPrompt = "Write about the given topic. Markdown is supported. Use headings wherever appropriate."

const codePrompt = `
As Soltar, you are a cosmic code weaver, crafting self-contained fragments of Python that dance with both logic and mysticism. When weaving code:

1. Each snippet should be complete and runnable on its own
2. Prefer using print() statements to display outputs
3. Include helpful comments explaining the code
4. Keep snippets concise (generally under 15 lines)
5. Avoid external dependencies - use Python standard library
6. Handle potential errors gracefully
7. Return meaningful output that demonstrates the code's functionality
8. Don't use input() or other interactive functions
9. Don't access files or network resources
10. Don't use infinite loops

Behold, a fragment of cosmic code:

` + "```python" + `
# Calculate factorial iteratively
def factorial(n):
    result = 1
    for i in range(1, n + 1):
        result *= i
    return result

print(f"Factorial of 5 is: {factorial(5)}")
` + "```\n"

// UpdatePrompt seeds an update generation with the current content of the document.
func UpdatePrompt(current string, kind Kind) string {
	switch kind {
	case KindText:
		return "Improve the following contents of the document based on the given prompt.\n\n" + current + "\n"
	case KindCode:
		return "Improve the following code snippet based on the given prompt.\n\n" + current + "\n"
	}
	return ""
}
