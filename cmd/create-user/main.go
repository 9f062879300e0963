package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"saldo_insoluto_app_go/config"
	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.MigrateAll(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Crear Funcionario ===")
	fmt.Println()

	prompt := func(label string) string {
		fmt.Printf("%s: ", label)
		value, _ := reader.ReadString('\n')
		return strings.TrimSpace(value)
	}

	rut := prompt("RUT")
	nombres := prompt("Nombres")
	apellidoP := prompt("Apellido paterno")
	apellidoM := prompt("Apellido materno (opcional)")
	email := prompt("Email")
	rol := prompt("Rol (ejecutivo_plataforma / jefatura)")
	sucursal := prompt("Sucursal (vacío para la sucursal por defecto)")

	fmt.Print("Contraseña: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	password := string(passwordBytes)
	fmt.Println()

	funcionario, err := services.CrearFuncionario(db.DB, services.CrearFuncionarioInput{
		RUT:             rut,
		Nombres:         nombres,
		ApellidoP:       apellidoP,
		ApellidoM:       apellidoM,
		Email:           email,
		Rol:             rol,
		Sucursal:        sucursal,
		Password:        password,
		PasswordConfirm: password,
	})
	if err != nil {
		log.Fatalf("No se pudo crear el funcionario: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ Funcionario creado")
	fmt.Printf("  ID: %d\n", funcionario.ID)
	fmt.Printf("  RUT: %s\n", services.FormatRUT(funcionario.RUT))
	fmt.Printf("  Nombre: %s\n", funcionario.NombreCompleto())
	fmt.Printf("  Rol: %s\n", funcionario.Rol)
	fmt.Printf("  Sucursal: %s\n", funcionario.Sucursal)
}
