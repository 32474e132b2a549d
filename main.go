package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/voxelsplace/svo/go/utils"
)

func usage() {
	fmt.Println("Usage: svotool <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  svox2glb input.svox output.glb            (convert snapshot -> .glb, face-culled mesh)")
	fmt.Println("  pack2glb input.svoxpack output.glb        (convert pack -> .glb, one node per entry)")
	fmt.Println("  pack output.svoxpack input1.svox [input2.svox ...]  (bundle snapshots into a pack)")
	fmt.Println("  unpack input.svoxpack output_dir          (extract pack into directory of .svox files)")
	fmt.Println("  info input.{svox,svoxpack}                (print snapshot/pack summary)")
	fmt.Println("  gennoise <size> <maxDepth> <percentage> <amount> <output_dir>")
	fmt.Println("  gennoise <size> <maxDepth> <percMin> <percMax> <amount> <output_dir>")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "svox2glb":
		if len(os.Args) != 4 {
			usage()
			os.Exit(1)
		}
		if err := utils.RunSVOX2GLB(os.Args[2], os.Args[3]); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	case "pack2glb":
		if len(os.Args) != 4 {
			usage()
			os.Exit(1)
		}
		if err := utils.RunSVOXPACK2GLB(os.Args[2], os.Args[3], runtime.NumCPU()); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	case "pack":
		if len(os.Args) < 4 {
			usage()
			os.Exit(1)
		}
		if err := utils.CreatePack(os.Args[3:], os.Args[2]); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	case "unpack":
		if len(os.Args) != 4 {
			usage()
			os.Exit(1)
		}
		if err := utils.RunUnpackSVOX(os.Args[2], os.Args[3]); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	case "info":
		if len(os.Args) != 3 {
			usage()
			os.Exit(1)
		}
		if err := utils.RunSVOXInfo(os.Args[2]); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	case "gennoise":
		// Two forms:
		// 1) gennoise <size> <maxDepth> <percentage> <amount> <output_dir>
		// 2) gennoise <size> <maxDepth> <percMin> <percMax> <amount> <output_dir>
		if len(os.Args) == 7 {
			size, depth, err := parseGeometry(os.Args[2], os.Args[3])
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			perc, err1 := strconv.ParseFloat(os.Args[4], 64)
			amt, err2 := strconv.Atoi(os.Args[5])
			if err1 != nil || err2 != nil {
				usage()
				os.Exit(1)
			}
			if err := utils.RunGenerateNoiseSVOX(size, depth, perc, amt, os.Args[6]); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
		} else if len(os.Args) == 8 {
			size, depth, err := parseGeometry(os.Args[2], os.Args[3])
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			minP, err1 := strconv.ParseFloat(os.Args[4], 64)
			maxP, err2 := strconv.ParseFloat(os.Args[5], 64)
			amt, err3 := strconv.Atoi(os.Args[6])
			if err1 != nil || err2 != nil || err3 != nil {
				usage()
				os.Exit(1)
			}
			if err := utils.RunGenerateNoiseSVOXRange(size, depth, minP, maxP, amt, os.Args[7]); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
		} else {
			usage()
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(1)
	}

	fmt.Println("Operation completed!")
}

func parseGeometry(sizeArg, depthArg string) (float32, int, error) {
	size, err := strconv.ParseFloat(sizeArg, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", sizeArg, err)
	}
	depth, err := strconv.Atoi(depthArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid maxDepth %q: %w", depthArg, err)
	}
	return float32(size), depth, nil
}
