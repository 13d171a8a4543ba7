package text_test

import (
	"fmt"

	"github.com/walteh/partialedit/pkg/text"
)

func ExampleApply() {
	content := "func main() {\n\tif ok {\n\t\treturn\n\t}\n}\n"

	// the patch uses spaces, the source uses tabs
	res := text.Apply(content, text.Rule{
		OldString: "if ok {\n    return\n}",
		NewString: "if ok {\n    return nil\n}",
	})

	fmt.Printf("Tier: %s\n", res.Tier)
	fmt.Printf("Occurrences: %d\n", res.Occurrences)
	fmt.Print(res.Content)

	// Output:
	// Tier: flexible
	// Occurrences: 1
	// func main() {
	// 	if ok {
	// 	    return nil
	// 	}
	// }
}
