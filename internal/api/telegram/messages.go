package telegram

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"

	"dental-screen/internal/domain/fdi"
)

const (
	msgStart = `
		👋 ¡Hola! Soy un bot de apoyo para revisar radiografías dentales.

		📸 Envíame una radiografía panorámica y buscaré caries, dientes retenidos y pérdida ósea.

		📋 Comandos:
		/check — analizar una radiografía
		/fdi <número> — información de un diente (por ejemplo /fdi 36)
		/help — ayuda
		/cancel — cancelar la operación actual`

	msgHelp = `
		ℹ️ Cómo usar el bot:

		1️⃣ Envía la radiografía como foto o como archivo (JPG, PNG, BMP, TIFF)
		2️⃣ El bot comprueba que sea una radiografía dental
		3️⃣ Recibirás el informe y la imagen con los hallazgos marcados

		💡 Recomendaciones:
		• Exporta los PDF como imagen antes de enviarlos
		• Envía la imagen original, sin filtros ni capturas de pantalla
		• Como archivo se conserva la calidad completa

		⚠️ Es una herramienta de apoyo. No reemplaza el diagnóstico profesional.`

	msgAwaitingXray    = "📸 Envía la radiografía dental para analizarla."
	msgCancelled       = "❌ Operación cancelada. Envía /check para un nuevo análisis."
	msgSendXray        = "📸 Por favor, envía una radiografía dental como foto o archivo."
	msgUnknownCommand  = "❓ Comando desconocido. Usa /help para ver la ayuda."
	msgProcessing      = "⏳ Analizando la radiografía..."
	msgBusy            = "⏳ Todavía estoy analizando tu imagen anterior. Espera un momento."
	msgProcessingError = "⚠️ No se pudo procesar la imagen. Intenta con otro archivo."
	msgDetectorDown    = "⚠️ El servicio de detección no está disponible. Intenta más tarde."
	msgFileTooLarge    = "⚠️ El archivo es demasiado grande. El límite es de 20 MB."
	msgFDIUsage        = "Uso: /fdi <número>, por ejemplo /fdi 36"

	msgRejected = "❌ Imagen rechazada:\n%s"

	msgTooth = `
		🦷 Diente %d
		%s

		Cuadrante: %d (%s)
		Posición: %d
		Tipo: %s`

	msgCaption = "Hallazgos: %d · modelo %s"
)

// formatReplyText убирает общий отступ у многострочных шаблонов
func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func toothText(t fdi.Tooth) string {
	return formatReplyText(msgTooth, t.FDI, t.FullName, t.Quadrant, t.QuadrantName, t.Position, t.ToothType)
}
