package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "HTTP server address")
	mode := flag.String("mode", "list", "mode: list | get | create | update | delete")
	task := flag.String("task", "", "task for create / update")
	id := flag.Int64("id", 0, "id for get / update / delete")
	completed := flag.String("completed", "", "true | false for create / update")
	token := flag.String("token", os.Getenv("TODO_TOKEN"), "bearer token (AUTH_SECRET 有効時)")
	flag.Parse()

	c := newClient(*addr, *token)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	in, err := buildInput(*task, *completed)
	if err != nil {
		log.Fatal(err)
	}

	switch *mode {
	case "list":
		todos, err := c.list(ctx)
		if err != nil {
			log.Fatalf("list failed: %v", err)
		}
		if len(todos) == 0 {
			fmt.Println("no todos")
			return
		}
		fmt.Println("todos:")
		for _, t := range todos {
			printTodo("-", t)
		}

	case "get":
		requireID(*id, *mode)
		t, err := c.get(ctx, *id)
		if err != nil {
			log.Fatalf("get failed: %v", err)
		}
		printTodo("todo:", t)

	case "create":
		if in.Task == nil {
			log.Fatal("task is required for create")
		}
		t, err := c.create(ctx, in)
		if err != nil {
			log.Fatalf("create failed: %v", err)
		}
		printTodo("created:", t)

	case "update":
		requireID(*id, *mode)
		t, err := c.update(ctx, *id, in)
		if err != nil {
			log.Fatalf("update failed: %v", err)
		}
		printTodo("updated:", t)

	case "delete":
		requireID(*id, *mode)
		msg, err := c.delete(ctx, *id)
		if err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		fmt.Println(msg)

	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}

func buildInput(task, completed string) (todoInput, error) {
	var in todoInput
	if task != "" {
		in.Task = &task
	}
	if completed != "" {
		b, err := strconv.ParseBool(completed)
		if err != nil {
			return todoInput{}, fmt.Errorf("invalid -completed %q: %w", completed, err)
		}
		in.Completed = &b
	}
	return in, nil
}

func requireID(id int64, mode string) {
	if id <= 0 {
		log.Fatalf("id is required for %s", mode)
	}
}

func printTodo(prefix string, t todo) {
	fmt.Printf("%s id=%d task=%s completed=%v\n", prefix, t.ID, t.Task, t.Completed)
}
