package protocol

import (
	"fmt"

	dErrors "clave/pkg/domain-errors"
)

// The measure catalog is cumulative by severity: Yellow, Orange and Red all
// start from the shared escalation block, Orange and Red stack their own
// blocks on top, and every non-green level closes with its local-contingency
// line. The lists are static data so the cumulative ordering is visible at a
// glance and each entry's position becomes the action item's original order
// index.

var greenBaselineMeasures = []string{
	"Estado de funcionamiento habitual del hospital. Mantener vigilancia constante de indicadores de ocupación y flujo de pacientes.",
}

var sharedEscalationMeasures = []string{
	"Equipo UEA (Jefe de turno y Urgenciólogo Gestor) realiza búsqueda activa de egresos potenciales.",
	"Búsqueda activa de pacientes que cumplan criterios para derivación a camas en extrasistema, vía UGCC.",
	"En la Reunión de camas los representantes de los servicios clínicos deben contar con información clara y actualizada sobre los potenciales movimientos en sus respectivas unidades.",
	"Indiferenciación de camas básicas del Block Adulto, independiente de la especialidad a cargo (posibilidad pacientes ectópicos).",
	"Permitir traslado de pacientes básicos desde UEA a camas básicas del CR de la Mujer (Pensionado u Oncoginecología) según disponibilidad.",
	"Promover traslado de pacientes en proceso de alta a unidades hospitalarias alternativas para generar espacio asistencial (tiempo de ejecución: 2 horas).",
	"Notificación a Unidades de Apoyo para favorecer egreso oportuno de pacientes hospitalizados (priorización de recetas, imágenes, coordinación de ambulancia/traslado).",
}

var orangeMeasures = []string{
	"Traslado a Recuperación Central de pacientes con patología quirúrgica en espera de pabellón. Máximo: 4 pacientes en Clave Naranja.",
	"Traslado a Recuperación Central de pacientes post procedimiento angiográfico/coronariografía derivados desde otros centros, que se encuentren estables y en espera de rescate a su centro de origen.",
	"Suspender recepción de traslados de pacientes a través de la Unidad de Gestión en aquellos casos cuya patología no requiera resolución tiempo dependiente.",
	"Ingreso a Hospitalización Domiciliaria de pacientes quirúrgicos básicos, estables y de larga estadía (>72h sin cirugía programada en las próximas 24 horas).",
	"Generación de cupos en unidades hospitalarias (al menos 10% de dotación total de camas para recepción de pacientes de UEA).",
}

var redMeasures = []string{
	"Traslado a Recuperación Central de pacientes con patología quirúrgica en espera de pabellón. Máximo: 6 pacientes en Clave Roja.",
	"Traslado a Recuperación Central de pacientes post procedimiento angiográfico/coronariografía derivados desde otros centros, que se encuentren estables y en espera de rescate a su centro de origen.",
	"Suspender recepción de traslados de pacientes a través de la Unidad de Gestión en aquellos casos cuya patología no requiera resolución tiempo dependiente.",
	"Ingreso a Hospitalización Domiciliaria de pacientes quirúrgicos básicos, estables y de larga estadía (>72h sin cirugía programada en las próximas 24 horas).",
	"Coordinación de ingreso de pacientes supernumerarios a distintos servicios clínicos (hasta 2 a Traumatología, 2 a Cirugía, 1 a Neurología, 1 a Medicina), con un tiempo máximo de 60 minutos para concretar el traslado.",
	"Generación de cupos en unidades hospitalarias (al menos 15% de dotación total de camas para recepción de pacientes de UEA).",
	"En caso de no lograr el objetivo de generación de cupos (15%), la Unidad de Gestión de Pacientes implementa búsqueda activa de egresos con Comité de Camas Multidisciplinario.",
	"Suspender cirugías electivas que no cuentan con cama asignada.",
	"Jefes de equipos quirúrgicos reorganizan programación, priorizando casos de pacientes hospitalizados en espera de cirugía.",
	"Suspensión transitoria de ingresos electivos a unidades de Medicina, Neurología, Psiquiatría y Unidad Coronaria para optimizar camas para pacientes desde la Unidad de Emergencia Adulto.",
	"Entrega virtual de pacientes básicos estables de UEA a unidades hospitalarias (vía planilla estandarizada o sistema electrónico) si la entrega telefónica no se concreta en 15 minutos.",
}

var localContingencyMeasures = map[AlertLevel]string{
	LevelYellow: "Cada unidad clínica y de apoyo implementa sus medidas locales de contingencia en Clave Amarilla.",
	LevelOrange: "Cada unidad clínica y de apoyo implementa sus medidas locales de contingencia en Clave Naranja.",
	LevelRed:    "Cada unidad clínica y de apoyo implementa sus medidas locales de contingencia en Clave Roja.",
}

var reevaluationNotes = map[AlertLevel]string{
	LevelGreen:  "La reevaluación de Clave Verde se realiza a las 08:00 y 20:00 horas. Solo se puede activar antes en caso de un evento de Sobresaturación Aguda del Reanimador.",
	LevelYellow: "La reevaluación de Clave Amarilla se realiza a las 08:00 y 20:00 horas. Solo se puede activar antes en caso de un evento de Sobresaturación Aguda del Reanimador.",
	LevelOrange: "La reevaluación de Clave Naranja se realiza a las 4 horas desde su activación. Se determina si persiste la condición o si corresponde elevar la alerta a Clave Roja. Solo se puede activar antes en caso de un evento de Sobresaturación Aguda del Reanimador.",
	LevelRed:    "La reevaluación de Clave Roja se realiza a las 4 horas desde su activación. Se determina si persiste la condición o si corresponde desescalar la alerta.",
}

// MeasuresFor returns the ordered mitigation measures prescribed for a level.
// The slice is freshly allocated; callers may keep it.
func MeasuresFor(level AlertLevel) ([]string, error) {
	if !level.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown alert level %q", level))
	}

	var measures []string
	if level == LevelGreen {
		measures = append(measures, greenBaselineMeasures...)
		return measures, nil
	}

	measures = append(measures, sharedEscalationMeasures...)
	switch level {
	case LevelOrange:
		measures = append(measures, orangeMeasures...)
	case LevelRed:
		measures = append(measures, redMeasures...)
	}
	measures = append(measures, localContingencyMeasures[level])
	return measures, nil
}

// ReevaluationNoteFor returns the fixed reevaluation schedule text for a level.
func ReevaluationNoteFor(level AlertLevel) (string, error) {
	note, ok := reevaluationNotes[level]
	if !ok {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown alert level %q", level))
	}
	return note, nil
}
