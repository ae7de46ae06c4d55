package shared

import "fmt"

// VerifyTokenKey builds redis keys for address verification tokens.
func VerifyTokenKey(addressText string) string {
	return fmt.Sprintf("contacts:verify:%s", addressText)
}
