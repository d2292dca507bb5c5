// Command cutimage runs background removal on an image without the editor UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"charactercut/internal/pixelproc"
	"charactercut/internal/removal"

	_ "golang.org/x/image/tiff"
)

func main() {
	imagePath := flag.String("image", "", "Path to source image (PNG, JPEG, or TIFF)")
	outPath := flag.String("out", "cutout.png", "Output PNG path")
	endpoint := flag.String("endpoint", os.Getenv("CHARACTERCUT_API"), "Removal service base URL")
	edges := flag.Bool("edges", false, "Write an edge map alongside the cutout")
	edgeThreshold := flag.Float64("edge-threshold", 50, "Canny threshold for -edges")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: cutimage -image <path> [-out cutout.png] [-endpoint URL] [-edges]")
		os.Exit(1)
	}

	f, err := os.Open(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode image: %v\n", err)
		os.Exit(1)
	}

	bounds := img.Bounds()
	fmt.Printf("Loaded %s image: %dx%d pixels\n", format, bounds.Dx(), bounds.Dy())

	var remover removal.Remover
	if *endpoint != "" {
		fmt.Printf("Removal service: %s\n", *endpoint)
		remover = removal.NewClient(*endpoint)
	} else {
		fmt.Println("No removal endpoint, copying input unchanged")
		remover = removal.NewPassthrough()
	}

	cutout, err := remover.Remove(context.Background(), img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Background removal failed: %v\n", err)
		os.Exit(1)
	}

	if err := writePNG(*outPath, cutout); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write cutout: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *outPath)

	if *edges {
		svc := pixelproc.NewService(0)
		defer svc.Destroy()

		rgba := image.NewRGBA(cutout.Bounds())
		for y := rgba.Bounds().Min.Y; y < rgba.Bounds().Max.Y; y++ {
			for x := rgba.Bounds().Min.X; x < rgba.Bounds().Max.X; x++ {
				rgba.Set(x, y, cutout.At(x, y))
			}
		}

		edgeMap, err := svc.DetectEdges(context.Background(), rgba, *edgeThreshold)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Edge detection failed: %v\n", err)
			os.Exit(1)
		}

		edgePath := *outPath + ".edges.png"
		if err := writePNG(edgePath, edgeMap); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write edge map: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", edgePath)
	}
}

func writePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, img)
}
