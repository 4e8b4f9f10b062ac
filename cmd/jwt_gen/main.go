package main

import (
	"fmt"
	"os"

	"github.com/hijjiri/todo-api/internal/auth"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	secret := os.Getenv("AUTH_SECRET")
	if secret == "" {
		// サーバ側も AUTH_SECRET 未設定なら認証しないので、ここでは発行しない
		fmt.Fprintln(os.Stderr, "AUTH_SECRET is not set")
		os.Exit(1)
	}
	subject := getenv("JWT_SUBJECT", "user-123")

	token, err := auth.GenerateToken(secret, subject, auth.DevTokenTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}

	// TODO_TOKEN=$(jwt_gen) で使えるよう、標準出力にはトークンだけを出す
	fmt.Print(token)
}
