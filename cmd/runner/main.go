// runner loads a raw 6502 binary image into memory, seeds the reset
// vector, and executes it for a fixed cycle budget, printing the final
// register state.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/jmchacon/sixfiveohtwo/cpu"
	"github.com/jmchacon/sixfiveohtwo/memory"
)

var (
	loadAddr = flag.Int("load_addr", 0x0000, "address to load the binary at")
	startPC  = flag.Int("start_pc", -1, "PC to begin execution at; defaults to load_addr")
	budget   = flag.Int("budget", 1000, "cycle budget to run the program for")
)

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("Usage: %s --load_addr=XXXX --start_pc=XXXX --budget=N <filename>", os.Args[0])
	}
	if *loadAddr < 0 || *loadAddr > 0xFFFF {
		log.Fatal("--load_addr out of range. Must be between 0-65535")
	}
	pc := *startPC
	if pc < 0 {
		pc = *loadAddr
	}
	if pc > 0xFFFF {
		log.Fatal("--start_pc out of range. Must be between 0-65535")
	}
	if *budget <= 0 {
		log.Fatal("--budget must be positive")
	}

	fn := flag.Args()[0]
	b, err := ioutil.ReadFile(fn)
	if err != nil {
		log.Fatalf("Can't open %s - %v", fn, err)
	}
	if len(b) > 65536-*loadAddr {
		log.Fatalf("%s is too large to fit at load_addr 0x%.4X", fn, *loadAddr)
	}

	ram := memory.NewFlat()
	for i, v := range b {
		ram.Write(uint16(*loadAddr+i), v)
	}
	ram.Write(cpu.RESET_VECTOR, uint8(pc))
	ram.Write(cpu.RESET_VECTOR+1, uint8(pc>>8))

	c := cpu.New(ram)
	c.Reset()
	runErr := c.Execute(*budget)

	fmt.Printf("A=%.2X X=%.2X Y=%.2X S=%.2X P=%.2X PC=%.4X\n", c.A, c.X, c.Y, c.S, c.P, c.PC)
	if runErr != nil {
		log.Fatalf("execution halted: %v", runErr)
	}
}
